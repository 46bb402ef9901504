package version

// Version is the current version of the webrtcshare CLI.
// Override at build time with:
//
//	go build -ldflags="-X 'github.com/spundev/webrtcshare/internal/version.Version=v1.0.0'"
var Version = "dev"
