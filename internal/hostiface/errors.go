package hostiface

import "errors"

// ErrInstrumentationUnsupported is returned by a Host's RewriteSource when
// that host only supports the hook front-end (spec.md §4.E).
var ErrInstrumentationUnsupported = errors.New("hostiface: instrumentation fallback not supported by this host")
