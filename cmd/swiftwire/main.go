// Swiftwire CLI entry point
//
// Swiftwire keeps a local Swift project mirrored on a remote build host
// and turns file saves into the cheapest reload that is still correct.
package main

import "github.com/swiftwire/swiftwire/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
