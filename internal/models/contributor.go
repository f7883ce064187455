package models

type Contributor struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
	Created     string `json:"created"`
}
