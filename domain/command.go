package domain

// PostMessageCommand carries what an authenticated connection asked to post.
// The sender is never part of it: it comes from the session identity.
type PostMessageCommand struct {
	Content     string
	RecipientID *string
	ClanID      *string
}

// ToDraft binds the command to the identity that issued it.
func (p PostMessageCommand) ToDraft(identity Identity, content string) Draft {
	return Draft{
		SenderID:    identity.UserID,
		Username:    identity.Username,
		Content:     content,
		RecipientID: p.RecipientID,
		ClanID:      p.ClanID,
	}
}
