package snippets

import "time"

type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeSiteCSS  Scope = "site-css"
	ScopeFooterJS Scope = "site-footer-js"
	ScopeContent  Scope = "content"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeSiteCSS, ScopeFooterJS, ScopeContent:
		return true
	}
	return false
}

// Type reports the language a scope executes as.
func (s Scope) Type() string {
	switch s {
	case ScopeGlobal:
		return "php"
	case ScopeSiteCSS:
		return "css"
	case ScopeFooterJS:
		return "js"
	case ScopeContent:
		return "html"
	}
	return ""
}

// Snippet is a locally stored snippet. ID 0 marks an unsaved record;
// Save inserts it as new. CloudID is nil until the snippet is linked
// to a remote one, then holds the encoded cloud identity.
type Snippet struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Desc     string  `json:"desc"`
	Code     string  `json:"code"`
	Scope    Scope   `json:"scope"`
	Active   bool    `json:"active"`
	Network  bool    `json:"network"`
	CloudID  *string `json:"cloud_id"`
	Revision int     `json:"revision"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields holds a partial update. Nil members are left untouched.
// SetCloudID distinguishes clearing CloudID from not changing it.
type Fields struct {
	Name       *string
	Desc       *string
	Code       *string
	Active     *bool
	Revision   *int
	CloudID    *string
	SetCloudID bool
}

type CreateSnippetRequest struct {
	Name  string
	Desc  string
	Code  string
	Scope Scope
}
