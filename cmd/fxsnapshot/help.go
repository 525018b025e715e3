// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sys/cpu"
)

func printBuildInfo() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Println("build info not available")
		return
	}
	fmt.Println(bi.String())
	// No part of this tool has a SIMD fast path; the feature string is
	// printed only as a build-environment diagnostic, the way sneller's
	// own -build output reports it alongside cache/vm tuning info.
	fmt.Printf("host features: avx2=%t avx512f=%t\n", cpu.X86.HasAVX2, cpu.X86.HasAVX512F)
}
