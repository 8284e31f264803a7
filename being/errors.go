package being

import "errors"

// errCycleSurvivedRemoval would indicate a bug in pgraph.RemoveBackEdges
// (FindBackEdges is supposed to make any graph acyclic); Being surfaces
// it rather than silently dropping vertices from the execution order.
var errCycleSurvivedRemoval = errors.New("being: topological sort failed after back-edge removal")
