package suite

// Select picks the first suite from prefs (server preference order) that
// the client offered, is available in this build, and — when client
// authentication will be requested — is client-auth capable. Unavailable
// entries are skipped, never attempted. Returns nil when no suite matches.
func Select(offered []ID, prefs []*Suite, needClientAuth bool) *Suite {
	for _, s := range prefs {
		if !s.Available {
			continue
		}
		if needClientAuth && !s.ClientAuthCapable {
			continue
		}
		for _, id := range offered {
			if id == s.ID {
				return s
			}
		}
	}
	return nil
}

// Resolve maps configured identifiers to catalog entries. Unknown
// identifiers yield ErrUnknownSuite; explicitly requesting an unavailable
// suite yields ErrUnavailable (a configuration error, detected before any
// negotiation step). A nil or empty list resolves to every available
// catalog entry in preference order.
func Resolve(ids []ID) ([]*Suite, error) {
	if len(ids) == 0 {
		var out []*Suite
		for _, s := range Catalog() {
			if s.Available {
				out = append(out, s)
			}
		}
		return out, nil
	}

	out := make([]*Suite, 0, len(ids))
	for _, id := range ids {
		s, ok := ByID(id)
		if !ok {
			return nil, ErrUnknownSuite
		}
		if !s.Available {
			return nil, ErrUnavailable
		}
		out = append(out, s)
	}
	return out, nil
}
