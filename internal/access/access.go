package access

import (
	"go-orgstructure/internal/shared/apperror"
)

type Capability string

const (
	CapabilityView   Capability = "view"
	CapabilityManage Capability = "manage"
	CapabilityAssign Capability = "assign"
)

// Capabilities dievaluasi di resource ini oleh permission engine.
const Resource = "org_structure"

var AllCapabilities = []Capability{CapabilityView, CapabilityManage, CapabilityAssign}

// Actor is the caller identity plus capabilities resolved before the call.
// Nothing in the org packages reads identity from globals or the request.
type Actor struct {
	UserID       string
	Capabilities map[Capability]bool
}

func NewActor(userID string, caps ...Capability) Actor {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return Actor{UserID: userID, Capabilities: set}
}

func (a Actor) Can(c Capability) bool {
	return a.Capabilities[c]
}

func (a Actor) Require(c Capability) error {
	if a.Can(c) {
		return nil
	}
	return apperror.ErrForbidden.WithDetails(map[string]string{
		"required": Resource + ":" + string(c),
	})
}

func (a Actor) List() []string {
	out := make([]string, 0, len(a.Capabilities))
	for _, c := range AllCapabilities {
		if a.Capabilities[c] {
			out = append(out, string(c))
		}
	}
	return out
}
