// Package engine is the external collaborator spec.md's core assumes but
// does not implement: a concrete task.Context backed by a priority
// ready-queue and a fixed worker pool.
//
//	eng := engine.New(config.DefaultEngineConfig())
//	defer eng.Close()
//	root := task.Value("seed", 1)
//	if err := eng.Run(context.Background(), root); err != nil {
//		// root failed or was cancelled
//	}
package engine
