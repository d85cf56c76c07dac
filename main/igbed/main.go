// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// igbed drives Intel 8256x/8257x gigabit controllers from user space.
package main

import (
	"fmt"
	"os"

	"github.com/platinasystems/igbe/cmd/igbed"
)

func main() {
	c := &igbed.Command{}
	if err := c.Main(os.Args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", c, err)
		os.Exit(1)
	}
}
