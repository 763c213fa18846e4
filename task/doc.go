// Package task implements ParSeq's core task-composition engine: a
// write-once Promise, a Task built from a Promise plus an execution body,
// and the combinator surface (Map, FlatMap, AndThen, WithSideEffect,
// Recover family, WithTry, WithTimeout, Par2..Par9) that derives new tasks
// from existing ones.
//
// A Task is both a node in a dependency graph and a handle to its eventual
// result. Tasks are constructed eagerly (the graph exists before anything
// runs) and executed by an external scheduler reached through the Context
// interface — package task only consumes that interface; package engine
// provides one concrete implementation.
//
//	v := task.Value("ten", 10)
//	r := task.Map(v, "plus one", func(n int) (int, error) { return n + 1, nil })
//	eng := engine.New(config.DefaultEngineConfig())
//	eng.Run(context.Background(), r)
//	<-r.Done()
//	val, err := r.Get()
package task
