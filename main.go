// Public domain.

package main

import "github.com/rts2/shiftstore/internal/ssprog"

func main() {
	ssprog.Main()
}
