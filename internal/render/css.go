/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"strconv"
	"strings"

	"goscreenwriter/internal/fountain"
)

const baseCSS = `body { background: #fff; color: #000; margin: 0; }
.screenplay { font-family: "Courier Prime", "Courier New", Courier, monospace; font-size: 12pt; line-height: 12pt; width: 6in; margin: 1in 1in 1in 1.5in; }
.screenplay p, .screenplay h2 { font-size: 12pt; font-weight: normal; margin-top: 0; margin-bottom: 12pt; white-space: pre-wrap; }
.title-page { text-align: center; margin-bottom: 3in; page-break-after: always; }
.title-page .tp-title { font-weight: bold; text-transform: uppercase; margin-top: 3in; }
.sfx { font-weight: bold; }
`

// CSS returns the embedded stylesheet for the resolved element styles.
// Output is stable for equal inputs.
func CSS(styles *StyleSheet) string {
	var b strings.Builder
	b.WriteString(baseCSS)
	for _, t := range fountain.ElementTypes {
		st := styles.Resolve(t)
		b.WriteString(".screenplay .")
		b.WriteString(t.String())
		b.WriteString(" { margin-left: ")
		b.WriteString(inches(st.MarginLeft))
		if st.Width > 0 {
			b.WriteString("; width: ")
			b.WriteString(inches(st.Width))
		}
		b.WriteString("; text-align: ")
		if st.Align == "" {
			b.WriteString("left")
		} else {
			b.WriteString(st.Align)
		}
		if st.Bold {
			b.WriteString("; font-weight: bold")
		}
		if st.Uppercase {
			b.WriteString("; text-transform: uppercase")
		}
		if st.Tight {
			b.WriteString("; margin-bottom: 0")
		}
		b.WriteString("; }\n")
	}
	return b.String()
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "in"
}
