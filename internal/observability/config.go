package observability

// Config captures opt-in debug toggles that wire into the HTTP surface.
type Config struct {
	// EnablePprofTrace mounts the net/http/pprof handlers under /debug/pprof/.
	EnablePprofTrace bool
}
