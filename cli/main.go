// NuxtHub CLI deploys full-stack Nuxt applications and manages their
// databases and logs.
//
// Typical usage:
//
//	nuxthub login --token <token>
//	nuxthub link --team <team> --project <project>
//	nuxthub deploy
package main

import "nuxthub/cli/cmd"

func main() {
	cmd.Execute()
}
