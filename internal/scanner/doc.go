/*
Package scanner turns type descriptors into graph nodes.

A descriptor is what a language front end reports about one compiled type:
its kind, annotations and declared methods. Scan writes them in a single
transaction using this model:

	(:Type:Class {fqn, name})   -[:DECLARES]->     (:Method {name, signature})
	(:Type|:Method)             -[:ANNOTATED_BY]-> (:Annotation {values...})
	(:Annotation)               -[:OF_TYPE]->      (:Type {fqn, name})

Type nodes are unique per fully qualified name. A type that is only
referenced, for example an annotation type from a library, is a plain Type
node; scanning it later adds its kind label to the existing node.
*/
package scanner
