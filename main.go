// main.go
package main

import "github.com/markb/tably/cmd"

func main() {
	cmd.Execute()
}
