package mint

import "github.com/lightninglabs/l402gate/internal/build"

var log = build.NewSubLogger("MINT", nil)
