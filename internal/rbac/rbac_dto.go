package rbac

type EnforceRequest struct {
	UserID   string `json:"user_id" binding:"required,uuid"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

type EnforceResponse struct {
	Allowed bool `json:"allowed"`
}

type CapabilitiesResponse struct {
	UserID       string   `json:"user_id"`
	Resource     string   `json:"resource"`
	Capabilities []string `json:"capabilities"`
}

type RoleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
