// Document codecs. The store holds schemaless map documents; these
// conversions are the single place where field names live.
package domain

import "time"

func (p Profile) Doc() map[string]any {
	return map[string]any{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"username":  p.Username,
		"bio":       p.Bio,
		"privacy":   map[string]any{"searchable": p.Privacy.Searchable},
	}
}

func ProfileFromDoc(data map[string]any) Profile {
	p := Profile{
		FirstName: asString(data["firstName"]),
		LastName:  asString(data["lastName"]),
		Username:  asString(data["username"]),
		Bio:       asString(data["bio"]),
	}
	if privacy, ok := data["privacy"].(map[string]any); ok {
		p.Privacy.Searchable, _ = privacy["searchable"].(bool)
	}
	return p
}

func (p PublicProfile) Doc() map[string]any {
	return map[string]any{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"username":  p.Username,
		"bio":       p.Bio,
	}
}

func PublicProfileFromDoc(principalID string, data map[string]any) PublicProfile {
	return PublicProfile{
		PrincipalID: principalID,
		FirstName:   asString(data["firstName"]),
		LastName:    asString(data["lastName"]),
		Username:    asString(data["username"]),
		Bio:         asString(data["bio"]),
	}
}

// Doc encodes everything except ID and Timestamp; the caller decides
// whether the timestamp field carries a concrete time or the store's
// server-time sentinel.
func (c Chat) Doc() map[string]any {
	info := make(map[string]any, len(c.ParticipantInfo))
	for id, pi := range c.ParticipantInfo {
		info[id] = map[string]any{
			"username":  pi.Username,
			"firstName": pi.FirstName,
			"lastName":  pi.LastName,
		}
	}
	doc := map[string]any{
		"type":            string(c.Kind),
		"participants":    c.Participants,
		"participantInfo": info,
		"lastMessage":     c.LastMessage,
	}
	if c.Kind != ChatPrivate {
		doc["name"] = c.Name
		doc["description"] = c.Description
		doc["creator"] = c.Creator
	}
	return doc
}

func ChatFromDoc(id string, data map[string]any) Chat {
	c := Chat{
		ID:           id,
		Kind:         ChatKind(asString(data["type"])),
		Participants: asStrings(data["participants"]),
		LastMessage:  asString(data["lastMessage"]),
		Timestamp:    asTime(data["timestamp"]),
		Name:         asString(data["name"]),
		Description:  asString(data["description"]),
		Creator:      asString(data["creator"]),
	}
	if raw, ok := data["participantInfo"].(map[string]any); ok {
		c.ParticipantInfo = make(map[string]ParticipantInfo, len(raw))
		for pid, v := range raw {
			if fields, ok := v.(map[string]any); ok {
				c.ParticipantInfo[pid] = ParticipantInfo{
					Username:  asString(fields["username"]),
					FirstName: asString(fields["firstName"]),
					LastName:  asString(fields["lastName"]),
				}
			}
		}
	}
	return c
}

func (m Message) Doc() map[string]any {
	return map[string]any{
		"sender":         m.Sender,
		"senderUsername": m.SenderUsername,
		"text":           m.Text,
		"kind":           string(m.Kind),
	}
}

func MessageFromDoc(id string, data map[string]any) Message {
	return Message{
		ID:             id,
		Sender:         asString(data["sender"]),
		SenderUsername: asString(data["senderUsername"]),
		Text:           asString(data["text"]),
		Timestamp:      asTime(data["timestamp"]),
		Kind:           MessageKind(asString(data["kind"])),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// asTime tolerates both in-memory time values and their JSON form, so the
// same codec serves direct snapshots and store-decoded documents.
func asTime(v any) *time.Time {
	switch vv := v.(type) {
	case time.Time:
		return &vv
	case *time.Time:
		return vv
	case string:
		if t, err := time.Parse(time.RFC3339Nano, vv); err == nil {
			return &t
		}
	}
	return nil
}
