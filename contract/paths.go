package contract

import "fmt"

// Paths owns the addressing scheme of the document store under one
// tenant namespace. Keeping it here means no component ever assembles a
// raw path string.
type Paths struct {
	AppID string
}

func NewPaths(appID string) Paths {
	return Paths{AppID: appID}
}

// Profile is the principal's private profile document.
func (p Paths) Profile(principalID string) string {
	return fmt.Sprintf("%s/users/%s/profile/data", p.AppID, principalID)
}

// PublicUser is the discovery projection, present iff searchable.
func (p Paths) PublicUser(principalID string) string {
	return fmt.Sprintf("%s/public/users/%s", p.AppID, principalID)
}

func (p Paths) PublicUsers() string {
	return fmt.Sprintf("%s/public/users", p.AppID)
}

// UsernameClaim is the atomic reservation document keyed by the
// normalized username itself.
func (p Paths) UsernameClaim(username string) string {
	return fmt.Sprintf("%s/public/usernames/%s", p.AppID, username)
}

func (p Paths) Chat(chatID string) string {
	return fmt.Sprintf("%s/public/chats/%s", p.AppID, chatID)
}

func (p Paths) Chats() string {
	return fmt.Sprintf("%s/public/chats", p.AppID)
}

func (p Paths) Messages(chatID string) string {
	return fmt.Sprintf("%s/public/chats/%s/messages", p.AppID, chatID)
}
