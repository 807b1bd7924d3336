// Package xa contains the value types and interfaces of the XA two-phase
// commit participant library. The root package is dependency-light by design;
// backend adapters (mysql, redis) and the participant engine live in their
// own packages.
package xa
