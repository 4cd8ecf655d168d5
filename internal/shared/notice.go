package shared

// Notice is a non-blocking message returned next to a successful save, used
// when a best-effort side effect (invoice creation, email, cache refresh)
// failed or did something the caller should know about.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notice kinds.
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
)

// Notices accumulates messages for a single operation.
type Notices []Notice

// Info appends an informational notice.
func (n *Notices) Info(msg string) {
	*n = append(*n, Notice{Kind: NoticeInfo, Message: msg})
}

// Warn appends a warning notice.
func (n *Notices) Warn(msg string) {
	*n = append(*n, Notice{Kind: NoticeWarning, Message: msg})
}
