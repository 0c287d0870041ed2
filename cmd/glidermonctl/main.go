// glidermonctl is the operator-facing inspection and testing tool for
// glidermon missions.
package main

import "github.com/iop-apl-uw/glidermon/cmd/glidermonctl/commands"

func main() {
	commands.Execute()
}
