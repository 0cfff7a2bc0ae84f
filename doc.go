/*
Package anamnesis is a diagnostic consultation engine: it walks a doctor through a
decision graph of yes/no questions until a diagnosis candidate is reached, keeping
every consultation durable, resumable and safe under concurrent access.

# Concept

The decision graph is immutable and shared. A consultation holds only its position,
its ordered answer history and its lifecycle status (active, draft, completed, canceled).
Every operation loads the consultation, applies one transition and saves it with an
optimistic version check, so replicas can share a store without lost updates.

# Graph sources

  - A directory is read as a Loam vault, one markdown document per node.
  - A YAML or JSON file holds either a flat node list or a nested yes/no tree.
  - pkg/adapters/memory and pkg/dsl build graphs in Go.

# Usage

	eng, err := anamnesis.New("./graphs/conjunctivitis.yaml")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	snap, err := eng.Start(ctx, "patient-1", "doctor-1")
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Answer(ctx, consultation.AnswerRequest{
		SessionID:      snap.Consultation.ID,
		Answer:         "yes",
		ExpectedNodeID: snap.Question.NodeID,
	})
	if err != nil {
		log.Fatal(err)
	}
	if res.NextQuestion == nil {
		fmt.Println("Candidate:", res.DiagnosisCandidate)
	}

The same service is exposed over HTTP (pkg/adapters/http) and MCP (pkg/adapters/mcp),
and the anamnesis command wires both to a configurable session store.
*/
package anamnesis
