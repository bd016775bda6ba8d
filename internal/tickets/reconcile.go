package tickets

// Reconcile folds a freshly fetched remote detail into the local one.
//
// The remote detail replaces the local one as a unit when it carries message
// ids the local log has not seen, or when the local log is empty and the
// remote one is not. Otherwise local is returned unchanged (same pointer).
// Messages already present locally are carried over by reference. A remote
// log that lacks a locally observed id is stale and ignored, so a message
// the user has seen is never removed.
func Reconcile(local, remote *TicketDetail) (*TicketDetail, bool) {
	if remote == nil {
		return local, false
	}
	if local == nil {
		return remote, true
	}
	if len(local.Messages) == 0 {
		if len(remote.Messages) == 0 {
			return local, false
		}
		return remote, true
	}

	remoteIDs := make(map[int64]struct{}, len(remote.Messages))
	for _, msg := range remote.Messages {
		remoteIDs[msg.ID] = struct{}{}
	}
	seen := make(map[int64]*Message, len(local.Messages))
	for _, msg := range local.Messages {
		if _, ok := remoteIDs[msg.ID]; !ok {
			return local, false
		}
		seen[msg.ID] = msg
	}
	if len(remoteIDs) <= len(seen) {
		return local, false
	}

	next := *remote
	next.Messages = make([]*Message, 0, len(remote.Messages))
	for _, msg := range remote.Messages {
		if prev, ok := seen[msg.ID]; ok {
			next.Messages = append(next.Messages, prev)
			continue
		}
		next.Messages = append(next.Messages, msg)
	}
	return &next, true
}
