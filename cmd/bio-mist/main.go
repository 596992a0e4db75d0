// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-mist reports poorly covered stretches ("MIST" gaps) of sequencing depth
in and around exons, and dumps per-position pileup counts for a region.

  bio-mist scan [flags] alignpath exonpath outpath
  bio-mist view -region chr:start-end [flags] bampath
*/

import (
	"github.com/genomics-workbench/mist/cmd/bio-mist/cmd"
)

func main() {
	cmd.Run()
}
