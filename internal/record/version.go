package record

// FormatVersion is the version tag embedded in every serialized lineage.
// Callers pass it explicitly through lineage.Codec so other environments can
// pin their own value.
const FormatVersion = "1.0"
