// Package readiness detects when a child process is ready by scanning its output.
//
// A Matcher decides whether a single line marks readiness:
//   - AddressMatcher accepts a literal scheme://host:port on the expected port
//   - KeywordMatcher accepts a line holding every configured keyword (case-insensitive)
//     and reports a synthesized address
//   - Chain evaluates matchers in order, first match wins
//
// A Watcher reads a stream line by line, strips terminal escape sequences and
// sets a write-once Signal on the first match:
//
//	sig := readiness.NewSignal()
//	m, _ := readiness.New(readiness.Config{
//	    Mode:     readiness.ModeAddressKeywords,
//	    Port:     5173,
//	    Keywords: []string{"VITE", "READY"},
//	})
//	w := readiness.NewWatcher("frontend", m, sig)
//	res, err := w.Watch(ctx, bufio.NewReader(stdout))
package readiness
