package minodm

import (
	core "github.com/minodm/minodm/minodm"
)

// Core model types, re-exported so embedders import one package.
type (
	Schema        = core.Schema
	SchemaOptions = core.SchemaOptions
	FieldDef      = core.FieldDef
	Field         = core.Field
	Model         = core.Model
	Collection    = core.Collection
	Query         = core.Query
	Policy        = core.Policy
)

const (
	PolicyKeep  = core.PolicyKeep
	PolicyError = core.PolicyError
	PolicyErase = core.PolicyErase
)

// Schema construction.
var (
	NewSchema      = core.NewSchema
	MustSchema     = core.MustSchema
	SchemaFromJSON = core.SchemaFromJSON
	SchemaFromYAML = core.SchemaFromYAML
	F              = core.F
	NewCollection  = core.NewCollection
)

// Field type constructors.
var (
	Any    = core.Any
	String = core.String
	Number = core.Number
	Bool   = core.Bool
	Date   = core.Date
	Object = core.Object
)

// Error taxonomy.
type Error = core.Error

type ErrorKind = core.ErrorKind

const (
	ErrIO              = core.ErrIO
	ErrSQL             = core.ErrSQL
	ErrSchema          = core.ErrSchema
	ErrValidation      = core.ErrValidation
	ErrUnknownProperty = core.ErrUnknownProperty
	ErrInvalidContext  = core.ErrInvalidContext
	ErrUnbound         = core.ErrUnbound
	ErrNotFound        = core.ErrNotFound
)

var (
	NewError = core.New
	Wrap     = core.Wrap
	IsKind   = core.IsKind
)
