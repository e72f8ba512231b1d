/*
Package domain contains the core types of the context variable engine.

It defines the declarative shape of a variable (its value type and the source that
produces it), the triggers that flip derived variables, the conversation events the
trigger engine observes, and the error taxonomy shared by every other package. The
package is kept pure: no I/O, no persistence, no logging.

# Key Entities

  - VariableDefinition: a named, typed variable and its Source.
  - Source: a closed union of StaticSource, EnvironmentSource, RecordSource and DerivedSource.
  - Trigger: a closed union of AgentTextTrigger (passive) and UIResponseTrigger (active).
  - Resolved: a variable value tagged with the kind of source that produced it.
  - Event: one agent utterance observed on the conversation stream.
*/
package domain
