// Package store owns the committed state value and applies queued transforms
// in deterministic batches.
//
// Dispatch never applies anything by itself: it appends an action record to
// the pending queue and, if no commit is scheduled yet, schedules one on the
// store's host loop. All dispatches issued before that commit runs, which
// includes every dispatch made from the same loop callback, are applied as
// one batch, in dispatch order, each transform seeing the result of the
// previous one. Subscribers then get exactly one state notification for the
// batch, followed by every action record, in order, on the action stream.
//
//	st, end := store.New(ctx, map[string]any{"count": 0})
//	defer end()
//
//	unsubscribe := st.Subscribe(func(s store.State) { render(s) })
//	defer unsubscribe()
//
//	st.Post(func() {
//	    st.Dispatch(increment, incrementRef)
//	    st.Dispatch(decrement, decrementRef)
//	}) // render is called once, with count == 0
package store
