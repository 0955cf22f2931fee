package music

// Reply is what a control or command answers with. The Discord layer turns it
// into an ephemeral response.
type Reply struct {
	Title   string
	Message string
	Footer  string
	Error   bool
	// Keep disables the auto-delete applied to short confirmations.
	Keep  bool
	File  *File
	Modal *Modal
}

// File is a text attachment.
type File struct {
	Name    string
	Content string
}

// Modal asks the member for one line of text.
type Modal struct {
	CustomID string
	Title    string
	Label    string
	Value    string
}

func success(msg string) Reply {
	return Reply{Title: "Success", Message: msg}
}

func failed(msg string) Reply {
	return Reply{Title: "Error", Message: msg, Error: true}
}
