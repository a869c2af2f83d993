/*
Package rawmap maps the rows of a hand-written SELECT into domain model
instances. You write the SQL a query builder cannot express; rawmap binds the
returned columns to a model's declared attributes and keeps every other column
as an annotation on the resulting instance.

# Overview

A [Model] describes a domain type: an ordered list of (attribute, column)
pairs and a factory that builds a value from an attribute map. Build one by
hand with [NewModel], derive it from struct tags with [StructModel], or use
[RecordModel] for plain maps.

[Open] validates the query, executes it through any [Querier] (*sql.DB,
*sql.Tx, *sql.Conn) and returns a [Results] that maps one row per call to
Next. [Query] and [Get] are the collect-all and first-row conveniences.

# Mapping rules

  - Result column names are taken from the driver, optionally normalized
    (quotes stripped, ASCII lower-cased) with [Normalize].
  - Translations ([Translate], [WithTranslations]) rename columns in order,
    before matching. A rename of an absent column is ignored; a rename onto a
    model column makes that column a model field.
  - Columns the model declares become the instance's attributes. Every
    declared column must be present, otherwise the row fails with an
    [InsufficientColumnsError] naming the missing columns.
  - All other columns become [Annotation] values, kept in result order,
    duplicates included. [Instance.Annotation] looks one up by name; the last
    occurrence wins.

# Error handling

  - [Open] returns an [InvalidQueryError] (matching [ErrInvalidQuery]) for
    anything that does not start with SELECT; nothing is executed.
  - Driver errors from execution and fetching are returned unmodified.
  - A failed row stops the iteration; rows already returned stay valid.

# Limitations

Query validation is lexical only. It does not parse SQL, so a statement that
hides a mutation after a second statement separator or behind a comment passes.
Results is single-consumer and not restartable; open a new one per reader.
*/
package rawmap
