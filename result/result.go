/*
Package result provides a sum type for the outcome of calls which may fail.

Calls crossing into a host channel (persistence, messaging) return a Result
instead of a bare (value, error) pair, so that callers have to decide about
propagation explicitly. Results are matched like this:

    var rules []rule.Rule
    var err error
    switch m := r.Match(); m {
    case m.Ok(&rules):
        …
    case m.Err(&err):
        …
    }

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package result

import "errors"

// errNil is substituted if a client constructs an Err without an error.
var errNil = errors.New("result: Err constructed with nil error")

// Result is the result of a computation that may fail.
type Result[T any] interface {
	Match() Matcher[T]
	IsOk() bool
	Get() (T, error)   // unpack into Go's conventional return pair
	WithDefault(T) T   // value if Ok, default otherwise
}

type result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](x T) Result[T] {
	return &result[T]{value: x}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNil
	}
	return &result[T]{err: err}
}

// Of converts a conventional Go return pair into a Result.
func Of[T any](x T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(x)
}

// Unit is the value type for results of calls which produce nothing but success.
type Unit struct{}

// Done returns a successful Result[Unit].
func Done() Result[Unit] {
	return Ok(Unit{})
}

// Check reduces a plain error to a Result[Unit].
func Check(err error) Result[Unit] {
	return Of(Unit{}, err)
}

func (r *result[T]) Match() Matcher[T] {
	return matcher[T]{r: r}
}

func (r *result[T]) IsOk() bool {
	return r.err == nil
}

func (r *result[T]) Get() (T, error) {
	return r.value, r.err
}

func (r *result[T]) WithDefault(def T) T {
	if r.err != nil {
		return def
	}
	return r.value
}

// Map applies f to the value of an Ok result and passes errors through.
func Map[T, S any](r Result[T], f func(T) S) Result[S] {
	v, err := r.Get()
	if err != nil {
		return Err[S](err)
	}
	return Ok(f(v))
}

// MapErr transforms the error of a failed result, e.g. to wrap it into a
// domain error type.
func MapErr[T any](r Result[T], f func(error) error) Result[T] {
	if _, err := r.Get(); err != nil {
		return Err[T](f(err))
	}
	return r
}

// --- Matching --------------------------------------------------------------

// Matcher is used in switch statements to destructure a Result.
type Matcher[T any] interface {
	Ok(*T) Matcher[T]
	Err(*error) Matcher[T]
}

// matcher holds a pointer, as results may carry non-comparable values (slices,
// maps) and the switch-idiom compares matchers.
type matcher[T any] struct {
	r *result[T]
}

func (rm matcher[T]) Ok(v *T) Matcher[T] {
	if rm.r.err == nil {
		if v != nil {
			*v = rm.r.value
		}
		return rm
	}
	return nil
}

func (rm matcher[T]) Err(err *error) Matcher[T] {
	if rm.r.err != nil {
		if err != nil {
			*err = rm.r.err
		}
		return rm
	}
	return nil
}
