package main

import (
	"github.com/spundev/webrtcshare/internal/logging"
)

func main() {
	logging.Init()
	Execute()
}
