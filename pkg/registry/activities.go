// Package registry provides built-in activity factory registration.
package registry

import (
	"github.com/caravelhq/caravel/pkg/activities/approval"
	"github.com/caravelhq/caravel/pkg/activities/httprequest"
	logactivity "github.com/caravelhq/caravel/pkg/activities/log"
	"github.com/caravelhq/caravel/pkg/activities/transform"
)

// RegisterDefaultActivities registers all built-in activity factories.
func (r *Registry) RegisterDefaultActivities() {
	r.RegisterActivity(httprequest.NewActivityFactory())
	r.RegisterActivity(transform.NewActivityFactory())
	r.RegisterActivity(logactivity.NewActivityFactory())
	r.RegisterActivity(approval.NewActivityFactory())
}
