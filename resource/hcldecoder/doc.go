// Package hcldecoder decodes a merged configuration body into a resource
// graph and autoscaling declarations.
//
// Resource blocks are validated against the registered kind schemas.
// Attribute expressions may reference other resources as
// {kind}.{name}.{attribute}; references become graph dependencies and the
// referencing attribute is decoded as an unknown value, resolved by the
// execution engine once the parent's output is available. References may be
// combined with string literals inside template expressions.
package hcldecoder
