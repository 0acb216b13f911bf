package pipeline

// Next continues the chain with the given payload.
type Next[T, R any] func(payload T) (R, error)

// Stage is a single layer of the pipeline.
type Stage[T, R any] interface {
	Handle(payload T, next Next[T, R]) (R, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc[T, R any] func(payload T, next Next[T, R]) (R, error)

// Handle calls f(payload, next).
func (f StageFunc[T, R]) Handle(payload T, next Next[T, R]) (R, error) {
	return f(payload, next)
}

// Pipeline carries a payload and the stages it will be sent through.
// A Pipeline is built per call and is not meant to be shared between goroutines.
type Pipeline[T, R any] struct {
	payload T
	stages  []Stage[T, R]
}

// Send starts a new pipeline for payload.
func Send[T, R any](payload T) *Pipeline[T, R] {
	return &Pipeline[T, R]{payload: payload}
}

// Through replaces the stage list. Nil stages are skipped.
func (p *Pipeline[T, R]) Through(stages ...Stage[T, R]) *Pipeline[T, R] {
	p.stages = compact(stages)
	return p
}

// Pipe appends stages to the existing list. Nil stages are skipped.
func (p *Pipeline[T, R]) Pipe(stages ...Stage[T, R]) *Pipeline[T, R] {
	p.stages = append(p.stages, compact(stages)...)
	return p
}

// Then runs the pipeline with terminal as the innermost handler.
func (p *Pipeline[T, R]) Then(terminal Next[T, R]) (R, error) {
	return Chain(terminal, p.stages...)(p.payload)
}

// ThenReturn runs the pipeline and returns whatever the stages produce
// when the payload reaches the end untouched.
func (p *Pipeline[T, R]) ThenReturn(result R) (R, error) {
	return p.Then(func(T) (R, error) { return result, nil })
}

// Chain folds stages around terminal right to left, so stages[0] becomes
// the outermost layer.
func Chain[T, R any](terminal Next[T, R], stages ...Stage[T, R]) Next[T, R] {
	next := terminal
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] == nil {
			continue
		}
		next = wrap(stages[i], next)
	}
	return next
}

func wrap[T, R any](stage Stage[T, R], next Next[T, R]) Next[T, R] {
	return func(payload T) (R, error) {
		return stage.Handle(payload, next)
	}
}

func compact[T, R any](stages []Stage[T, R]) []Stage[T, R] {
	out := make([]Stage[T, R], 0, len(stages))
	for _, s := range stages {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
