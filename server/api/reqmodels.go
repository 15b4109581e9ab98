package api

// note that these are *not* the DAO models; those are distinct and closer to
// the DB format they are in. Rather these are the models that are received
// from and sent to the client.

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type InfoModel struct {
	Version struct {
		Server   string `json:"server"`
		Xmilesim string `json:"xmilesim"`
	} `json:"version"`
}

type UserModel struct {
	URI            string `json:"uri"`
	ID             string `json:"id,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	Email          string `json:"email,"`
	Role           string `json:"role,omitempty"`
	Created        string `json:"created,omitempty"`
	Modified       string `json:"modified,omitempty"`
	LastLogoutTime string `json:"last_logout,omitempty"`
	LastLoginTime  string `json:"last_login,omitempty"`
}

type UserUpdateRequest struct {
	ID       UpdateString `json:"id,omitempty"`
	Username UpdateString `json:"username,omitempty"`
	Password UpdateString `json:"password,omitempty"`
	Email    UpdateString `json:"email,"`
	Role     UpdateString `json:"role,omitempty"`
}

type UpdateString struct {
	Update bool   `json:"u,omitempty"`
	Value  string `json:"v,omitempty"`
}

// ModelDocument is an uploaded/stored XMILE model as returned to API clients.
// Source holds the raw XMILE XML and is omitted from list responses.
type ModelDocument struct {
	URI         string `json:"uri"`
	ID          string `json:"id,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Created     string `json:"created,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

type ModelUpdateRequest struct {
	Name        UpdateString `json:"name,omitempty"`
	Description UpdateString `json:"description,omitempty"`
	Source      UpdateString `json:"source,omitempty"`
}

// RunRequest requests a one-off simulation run of a stored model. TopModel
// selects which model within the XMILE document to run; if empty, the
// document's root model is used. Overrides sets variable values prior to
// running (qualified name -> value).
type RunRequest struct {
	TopModel  string             `json:"top_model,omitempty"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

// RunResponse is the time series produced by a simulation run. Series maps
// each variable's qualified name to its saved values, one per saved step.
// Nothing about the run is persisted server-side; this response is the only
// record of it.
type RunResponse struct {
	Time   []float64            `json:"time"`
	Series map[string][]float64 `json:"series"`
}
