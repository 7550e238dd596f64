/*
Package domain contains the core entities and interfaces of the load balancer
decision engine.

The package is free of infrastructure concerns. It defines:
  - Server and Request views handed out by the engine as value copies
  - the request lifecycle (RequestStatus and its travel transitions)
  - selection policy identifiers, the Selection outcome and its Rationale
  - the Dispatcher interface consumed by collaborators

Request Lifecycle:

	ORIGIN_TO_GATEWAY -> AWAITING_DECISION -> GATEWAY_TO_SERVER -> AT_SERVER
	    -> SERVER_TO_GATEWAY -> GATEWAY_TO_ORIGIN -> DONE

A request waiting at AWAITING_DECISION moves on only through a policy
decision. When no healthy server exists it skips the server and goes
straight to GATEWAY_TO_ORIGIN marked as dropped. A request AT_SERVER moves on
only when resolved. All other transitions happen when travel finishes:

	next, ok := domain.StatusGatewayToServer.Next() // AT_SERVER, true
	_, ok = domain.StatusAtServer.Next()            // ok == false, needs resolve

Selection Policies:

	domain.RoundRobin        // healthy[cursor % len(healthy)]
	domain.LeastConnections  // min active load, lowest id on ties
	domain.Random            // uniform over healthy servers
	domain.IPHash            // healthy[origin % len(healthy)]

IP hash keeps a client on the same position in the healthy list, so the
mapped server changes whenever the healthy set changes.
*/
package domain
