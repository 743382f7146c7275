package ussd

// Reply is a single gateway response. Terminal replies end the session; the
// gateway re-invokes the callback with an extended input path otherwise.
type Reply struct {
	Terminal bool
	Text     string
}

// Continue prompts for more input.
func Continue(text string) Reply {
	return Reply{Terminal: false, Text: text}
}

// End terminates the session.
func End(text string) Reply {
	return Reply{Terminal: true, Text: text}
}

// Render produces the wire string. Every reply carries a CON or END prefix;
// the prefix is never omitted.
func (r Reply) Render() string {
	if r.Terminal {
		return "END " + r.Text
	}
	return "CON " + r.Text
}
