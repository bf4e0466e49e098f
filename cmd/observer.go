package cmd

import (
	"fmt"
	"io"

	"github.com/riffle-ai/riffle/internal/pipeline"
)

// debugObserver prints a compact state summary after each pipeline
// stage. Output goes to stderr so it interleaves cleanly with answers.
func debugObserver(w io.Writer) pipeline.Observer {
	return func(stage pipeline.Stage, state *pipeline.State) {
		fmt.Fprintf(w, "--- stage: %s\n", stage)

		switch stage {
		case pipeline.StageStoreMemory:
			fmt.Fprintf(w, "    stored user turn %s\n", state.Query.ID)
		case pipeline.StageDeconstructQuery:
			for i, sq := range state.SubQueries {
				fmt.Fprintf(w, "    sub-query %d: %s\n", i+1, sq.Text)
			}
		case pipeline.StageRetrieveInfo:
			fmt.Fprintf(w, "    retrieved %d documents, %d after fusion\n",
				len(state.Retrieved), len(state.Fused))
			for i, doc := range state.Fused {
				fmt.Fprintf(w, "    fused %d: %s from %s (score %.5f)\n",
					i+1, doc.DocID, doc.Origin, doc.Score)
			}
		case pipeline.StageGenerate:
			fmt.Fprintf(w, "    answer length: %d\n", len(state.Answer))
		case pipeline.StageDone:
			fmt.Fprintf(w, "    turn complete, history length %d\n", state.History.Len())
		}
	}
}
