package node

import (
	"fmt"
	"io"

	"chordnode/internal/ring"
)

// PrintState renders self, predecessor, successor list, and finger
// table for the interactive PrintState command of spec §6. Contiguous
// runs of identical finger entries are collapsed into ranges since most
// of the table typically repeats the same few peers.
func (n *Node) PrintState(w io.Writer) {
	fmt.Fprintf(w, "self:        %s\n", n.self)

	pred := n.rt.Predecessor()
	if pred.IsZero() {
		fmt.Fprintln(w, "predecessor: <none>")
	} else {
		fmt.Fprintf(w, "predecessor: %s\n", pred)
	}

	fmt.Fprintln(w, "successor_list:")
	for i, s := range n.rt.SnapshotSuccessors() {
		fmt.Fprintf(w, "  [%d] %s\n", i, s)
	}

	fmt.Fprintln(w, "finger_table:")
	fingers := n.rt.SnapshotFingers()
	for i := 0; i < ring.Bits; {
		j := i + 1
		for j < ring.Bits && fingers[j].Equal(fingers[i]) {
			j++
		}
		if j-i == 1 {
			fmt.Fprintf(w, "  [%d] %s\n", i, fingers[i])
		} else {
			fmt.Fprintf(w, "  [%d..%d] %s\n", i, j-1, fingers[i])
		}
		i = j
	}
}
