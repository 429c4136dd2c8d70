package domain

import "time"

// The transition methods below report whether the record changed. A false
// result means the record was already in the target state.

func (n *Notification) MarkRead(now time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &now
	return true
}

func (n *Notification) MarkUnread() bool {
	if !n.IsRead {
		return false
	}
	n.IsRead = false
	n.ReadAt = nil
	return true
}

// SoftDelete keeps the read state so Restore can bring it back unchanged.
func (n *Notification) SoftDelete(now time.Time) bool {
	if n.IsDeleted {
		return false
	}
	n.IsDeleted = true
	n.DeletedAt = &now
	return true
}

func (n *Notification) Restore() bool {
	if !n.IsDeleted {
		return false
	}
	n.IsDeleted = false
	n.DeletedAt = nil
	return true
}

// PurgeableAt reports whether a soft-deleted record has been deleted for at
// least cooldown as of now.
func (n *Notification) PurgeableAt(now time.Time, cooldown time.Duration) bool {
	if !n.IsDeleted || n.DeletedAt == nil {
		return false
	}
	return !n.DeletedAt.After(now.Add(-cooldown))
}
