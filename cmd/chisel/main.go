// cmd/chisel/main.go
package main

import (
	"chisel/internal/app"
	"chisel/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
