/*
Package domain contains the core models of the consultation engine.

It defines the decision graph vertices, the consultation session value and its
status machine, and the typed errors shared by every layer. This package is kept
pure and free of I/O or persistence concerns.

# Key Entities

  - DecisionNode: a yes/no question, or a terminal node carrying a diagnosis.
  - Consultation: one interview of a patient by a doctor (position, history, status).
  - HistoryEntry: one answered question, in the order it was answered.
  - Error: a typed failure (validation, not_found, invalid_state, graph_invalid, concurrency).
*/
package domain
