package cloud

// Snippet is a remote snippet record as returned by the cloud API.
type Snippet struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Scope       string `json:"scope"`
	Revision    int    `json:"revision"`
	IsOwner     bool   `json:"is_owner"`
	Status      int    `json:"status"`
	Created     string `json:"created"`
}

// SnippetPage is one page of codevault or search results. CloudIDRev
// maps cloud id to current remote revision so revision checks do not
// need a request per snippet. A cached page with a different index is
// treated as a cache miss.
type SnippetPage struct {
	Snippets   []Snippet       `json:"snippets"`
	CloudIDRev map[int64]int   `json:"cloud_id_rev"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total_snippets"`
}

// Link ties one local snippet to one remote snippet. At most one link
// exists per local id. A link outside the codevault never reports an
// update as available.
type Link struct {
	LocalID         int64 `json:"local_id"`
	CloudID         int64 `json:"cloud_id"`
	IsOwner         bool  `json:"is_owner"`
	InCodevault     bool  `json:"in_codevault"`
	UpdateAvailable bool  `json:"update_available"`
}

// Settings is the durable connection record. CodeVerifier, CodeChallenge,
// State and LocalToken are regenerated while no verified connection
// exists; CloudToken and TokenVerified are set only by a successful
// code exchange.
type Settings struct {
	CloudToken    string `json:"cloud_token"`
	LocalToken    string `json:"local_token"`
	TokenVerified bool   `json:"token_verified"`
	CodeVerifier  string `json:"code_verifier"`
	CodeChallenge string `json:"code_challenge"`
	State         string `json:"state"`
}

type Bundle struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShareName string `json:"share_name"`
}

// StatusName translates a remote snippet status code to its label.
func StatusName(status int) string {
	switch status {
	case 3:
		return "Private"
	case 4:
		return "Public"
	case 5:
		return "Unverified"
	case 6:
		return "AI Verified"
	case 8:
		return "Pro Verified"
	default:
		return ""
	}
}
