package integration_tests

import (
	"github.com/specialistvlad/rulegraph/internal/scanner"
)

const beans = "com.buschmais.jqassistant.plugin.ejb3.test.set.beans."

// Bean fixtures mirror the classes of the EJB3 test set.
var (
	statelessLocalBean = scanner.TypeDescriptor{
		FQN:         beans + "StatelessLocalBean",
		Kind:        scanner.Class,
		Annotations: scanner.Annotate("javax.ejb.Stateless", "javax.ejb.Local"),
		Methods:     []scanner.MethodDescriptor{{Name: "doSomething", Signature: "void doSomething()"}},
	}
	statelessRemoteBean = scanner.TypeDescriptor{
		FQN:         beans + "StatelessRemoteBean",
		Kind:        scanner.Class,
		Annotations: scanner.Annotate("javax.ejb.Stateless", "javax.ejb.Remote"),
	}
	statefulBean = scanner.TypeDescriptor{
		FQN:         beans + "StatefulBean",
		Kind:        scanner.Class,
		Annotations: scanner.Annotate("javax.ejb.Stateful"),
	}
	singletonBean = scanner.TypeDescriptor{
		FQN:         beans + "SingletonBean",
		Kind:        scanner.Class,
		Annotations: scanner.Annotate("jakarta.ejb.Singleton"),
	}
	messageDrivenBean = scanner.TypeDescriptor{
		FQN:         beans + "MessageDrivenBean",
		Kind:        scanner.Class,
		Annotations: scanner.Annotate("javax.ejb.MessageDriven"),
	}
	scheduledBean = scanner.TypeDescriptor{
		FQN:         beans + "ScheduledBean",
		Kind:        scanner.Class,
		Annotations: scanner.Annotate("javax.ejb.Singleton"),
		Methods:     []scanner.MethodDescriptor{scheduled("cleanup")},
	}
	scheduledPojo = scanner.TypeDescriptor{
		FQN:     beans + "ScheduledPojo",
		Kind:    scanner.Class,
		Methods: []scanner.MethodDescriptor{scheduled("cleanup"), {Name: "helper"}},
	}
)

func scheduled(name string) scanner.MethodDescriptor {
	return scanner.MethodDescriptor{
		Name:      name,
		Signature: "void " + name + "()",
		Annotations: []scanner.AnnotationDescriptor{{
			Type:   "javax.ejb.Schedule",
			Values: map[string]any{"hour": "*", "persistent": false},
		}},
	}
}
