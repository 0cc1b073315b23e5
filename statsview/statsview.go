// Package statsview serves live runtime statistics for the emulator process
// over HTTP, using "github.com/go-echarts/statsview".
//
// After launch, graphs are viewable at:
//
//	localhost:12600/debug/statsview
//
// and the standard Go pprof pages at:
//
//	localhost:12600/debug/pprof/
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const Address = "localhost:12600"
const url = "/debug/statsview"

// Launch starts the stats server in a new goroutine. The returned function
// shuts it down.
func Launch(output io.Writer, addr string) func() {
	if addr == "" {
		addr = Address
	}

	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go mgr.Start()

	fmt.Fprintf(output, "stats server available at %s%s\n", addr, url)
	return mgr.Stop
}
