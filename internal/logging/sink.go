package logging

import "os"

func zapDefaultSink() *os.File { return os.Stderr }
