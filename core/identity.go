package core

import "fmt"

// Identity identifies the author of attributed writes, such as checkpoint
// commits in a git-backed blob store.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
