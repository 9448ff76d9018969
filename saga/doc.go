// Package saga runs long-lived coordination logic against a store.
//
// A saga body is an ordinary Go function that receives an *Effects value and
// calls its methods to take actions off the store's action stream, call
// futures, dispatch actions, and spawn child sagas:
//
//	func watchLogin(fx *saga.Effects) error {
//	    for {
//	        login, err := fx.Take(loginRequested)
//	        if err != nil {
//	            return err
//	        }
//	        user, err := fx.Call(fetchUser(login.Args[0]))
//	        if err != nil {
//	            return err
//	        }
//	        if _, err := fx.CallAction(loginSucceeded, user); err != nil {
//	            return err
//	        }
//	    }
//	}
//
// Every effect call suspends the body until the runtime answers it. The
// runtime drives all bodies from the store's loop, and only one body runs at
// a time, so a body may treat everything between two effect calls as atomic
// with respect to other sagas and to commits.
//
// Tasks form a tree. Stopping a task stops its children first, depth-first,
// and then raises a *StopError out of the effect call its body is blocked in.
// Once stopped, every further effect the body issues fails with the same
// error.
package saga
