package registry

import (
	"database/sql"
	"net/http"

	"github.com/docuflow/docuflow/pkg/nodes"
	"github.com/docuflow/docuflow/pkg/nodes/condition"
	"github.com/docuflow/docuflow/pkg/nodes/dbquery"
	"github.com/docuflow/docuflow/pkg/nodes/delay"
	"github.com/docuflow/docuflow/pkg/nodes/email"
	"github.com/docuflow/docuflow/pkg/nodes/end"
	"github.com/docuflow/docuflow/pkg/nodes/fileop"
	"github.com/docuflow/docuflow/pkg/nodes/httprequest"
	"github.com/docuflow/docuflow/pkg/nodes/script"
	"github.com/docuflow/docuflow/pkg/nodes/start"
	"github.com/docuflow/docuflow/pkg/nodes/transform"
)

// BuiltinDeps carries the external resources the builtin node set needs.
// Nil members degrade the corresponding node to a reported failure at run
// time rather than a registration failure.
type BuiltinDeps struct {
	DB         *sql.DB
	Mailer     email.Sender
	HTTPClient *http.Client
}

// RegisterBuiltins installs the standard node set on a registry.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	factories := []nodes.Factory{
		start.NewFactory(),
		end.NewFactory(),
		condition.NewFactory(),
		script.NewFactory(),
		httprequest.NewFactory(deps.HTTPClient),
		email.NewFactory(deps.Mailer),
		delay.NewFactory(),
		transform.NewFactory(),
		fileop.NewFactory(),
		dbquery.NewFactory(deps.DB),
	}

	for _, factory := range factories {
		if err := r.Register(factory); err != nil {
			return err
		}
	}

	return nil
}
