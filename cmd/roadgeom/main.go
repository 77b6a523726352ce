// Command roadgeom runs the OSM road geometry pipeline CLI.
package main

import "github.com/MeKo-Tech/roadgeom/internal/cmd"

func main() {
	cmd.Execute()
}
