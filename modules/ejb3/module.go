// Package ejb3 provides the rules classifying Enterprise Java Beans.
//
// Both the javax.ejb and the jakarta.ejb annotation packages are recognised.
package ejb3

import (
	"fmt"

	"github.com/specialistvlad/rulegraph/internal/rule"
)

// Rule names.
const (
	StatelessSessionBean       = "ejb3:StatelessSessionBean"
	StatefulSessionBean        = "ejb3:StatefulSessionBean"
	SingletonBean              = "ejb3:SingletonBean"
	MessageDrivenBean          = "ejb3:MessageDrivenBean"
	Local                      = "ejb3:Local"
	Remote                     = "ejb3:Remote"
	ScheduleMethodInEjbContext = "ejb3:ScheduleMethodInEjbContext"
	EJB                        = "ejb3:EJB"
)

var sessionBeans = []string{StatelessSessionBean, StatefulSessionBean, SingletonBean}

// annotatedTypes returns a query labelling every type that carries one of
// the annotation's variants.
func annotatedTypes(annotation, match, labels, column string) string {
	return fmt.Sprintf(`MATCH (t:%s)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type)
WHERE a.fqn == "javax.ejb.%[2]s" || a.fqn == "jakarta.ejb.%[2]s"
SET t:%[3]s
RETURN DISTINCT t AS %[4]s`, match, annotation, labels, column)
}

// Module implements the rule.Module interface for this package.
type Module struct{}

// Rules returns fresh definitions of the module's rules.
func Rules() []rule.Rule {
	return []rule.Rule{
		&rule.Concept{
			ID:          StatelessSessionBean,
			Description: "Labels all types annotated with @Stateless with Stateless and Ejb.",
			Query:       annotatedTypes("Stateless", "Type", "Stateless:Ejb", "statelessEjb"),
		},
		&rule.Concept{
			ID:          StatefulSessionBean,
			Description: "Labels all types annotated with @Stateful with Stateful and Ejb.",
			Query:       annotatedTypes("Stateful", "Type", "Stateful:Ejb", "statefulEjb"),
		},
		&rule.Concept{
			ID:          SingletonBean,
			Description: "Labels all types annotated with @Singleton with Singleton and Ejb.",
			Query:       annotatedTypes("Singleton", "Type", "Singleton:Ejb", "singletonEjb"),
		},
		&rule.Concept{
			ID:          MessageDrivenBean,
			Description: "Labels all types annotated with @MessageDriven with MessageDriven and Ejb.",
			Query:       annotatedTypes("MessageDriven", "Type", "MessageDriven:Ejb", "messageDrivenEjb"),
		},
		&rule.Concept{
			ID:            Local,
			Description:   "Labels all session beans annotated with @Local with Local.",
			Prerequisites: sessionBeans,
			Query:         annotatedTypes("Local", "Type:Ejb", "Local", "localEjb"),
		},
		&rule.Concept{
			ID:            Remote,
			Description:   "Labels all session beans annotated with @Remote with Remote.",
			Prerequisites: sessionBeans,
			Query:         annotatedTypes("Remote", "Type:Ejb", "Remote", "remoteEjb"),
		},
		&rule.Constraint{
			ID:            ScheduleMethodInEjbContext,
			Description:   "Methods annotated with @Schedule must be declared by an EJB.",
			Prerequisites: []string{StatelessSessionBean, StatefulSessionBean, SingletonBean, MessageDrivenBean},
			Severity:      rule.SeverityMajor,
			Query: `MATCH (t:Type)-[:DECLARES]->(m:Method)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type)
WHERE (a.fqn == "javax.ejb.Schedule" || a.fqn == "jakarta.ejb.Schedule") && !has_label(t, "Ejb")
RETURN t.fqn AS invalidBean, m.name AS methodName`,
		},
		&rule.Group{
			ID:          EJB,
			Description: "Classifies all Enterprise Java Beans.",
			Members:     []string{StatelessSessionBean, StatefulSessionBean, SingletonBean, MessageDrivenBean, Local, Remote},
		},
	}
}

// Register registers the EJB3 rules with the catalog.
func (m *Module) Register(c *rule.Catalog) error {
	if err := c.Register(Rules()...); err != nil {
		return fmt.Errorf("ejb3: %w", err)
	}
	return nil
}
