package infra

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// DefaultModel: role per anggota, izin (resource, action) per role; action "*" berarti semua.
const DefaultModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// NewEnforcer memuat model dari file; path kosong memakai DefaultModel.
func NewEnforcer(modelPath string) (*casbin.Enforcer, error) {
	if modelPath == "" {
		m, err := model.NewModelFromString(DefaultModel)
		if err != nil {
			return nil, err
		}
		return casbin.NewEnforcer(m)
	}
	return casbin.NewEnforcer(modelPath)
}
