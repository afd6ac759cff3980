// Package validation checks user submitted repository URLs before they are
// saved on an owner's profile.
//
// Every URL is offered to the enabled providers in registry order. A URL that
// no provider accepts yields an invalid-url diagnostic listing the accepted
// formats. Accepted URLs are fetched: a missing repository yields a not-found
// diagnostic and a repository whose URL already belongs to another owner yields
// a duplicate diagnostic. An empty diagnostic list means every URL passed.
package validation
