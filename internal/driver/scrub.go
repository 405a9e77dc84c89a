package driver

// ScrubPassword rewrites an argv slice so that any flag value equal to
// password is replaced with asterisks, so a subprocess failure's captured
// command line never leaks credentials into a log sink or stack trace.
func ScrubPassword(argv []string, password string) []string {
	if password == "" {
		return argv
	}
	out := make([]string, len(argv))
	for i, arg := range argv {
		if arg == password {
			out[i] = "********"
			continue
		}
		out[i] = arg
	}
	return out
}
