package saga

import "fmt"

// step is what a body hands back to the interpreter: either the next effect
// or its final result.
type step struct {
	effect Effect
	done   bool
	err    error
}

type resumption struct {
	value any
	err   error
}

// coroutine runs a body on its own goroutine, strictly alternating with the
// goroutine that drives it. Both channels are unbuffered, so exactly one
// side runs at any time.
type coroutine struct {
	body     func(yield func(Effect) (any, error)) error
	steps    chan step
	resumes  chan resumption
	finished bool
}

func newCoroutine(body func(yield func(Effect) (any, error)) error) *coroutine {
	return &coroutine{
		body:    body,
		steps:   make(chan step),
		resumes: make(chan resumption),
	}
}

// start runs the body up to its first effect or its return.
func (c *coroutine) start() step {
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrPanicked, r)
			}
			c.steps <- step{done: true, err: err}
		}()
		err = c.body(c.yield)
	}()
	return c.receive()
}

// resume answers the pending effect and runs the body up to its next step.
func (c *coroutine) resume(value any, err error) step {
	if c.finished {
		return step{done: true}
	}
	c.resumes <- resumption{value: value, err: err}
	return c.receive()
}

func (c *coroutine) receive() step {
	s := <-c.steps
	if s.done {
		c.finished = true
	}
	return s
}

func (c *coroutine) yield(e Effect) (any, error) {
	c.steps <- step{effect: e}
	r := <-c.resumes
	return r.value, r.err
}
