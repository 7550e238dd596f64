/*
Package service implements the decision engine of the load balancer
simulator and the background services around it.

Dispatcher:
The Dispatcher owns the server pool, the shared round-robin cursor and every
live request. Each exported method runs as one atomic step, so an HTTP
handler, the travel clock and the config reloader can drive it concurrently.

	engine := service.NewDispatcher(
		service.DefaultDispatcherConfig(),
		service.NewRandomSource(seed),
		service.NewMetrics(),
		log,
	)
	if err := engine.Initialize(3, 4, domain.LeastConnections); err != nil {
		return err
	}

	id, _ := engine.AddRequest(0, 1) // ORIGIN_TO_GATEWAY
	_ = engine.AdvanceRequest(id)    // arrives, auto mode assigns a server

In manual mode a request stays at AWAITING_DECISION until Step is called
twice: the first call previews the decision and its rationale, the second
commits it. A preview is recomputed when server load, health or the cursor
changed in between.

Selection Strategies:
Strategies are stateless. The round-robin cursor lives in the Dispatcher and
is shared by all policies; only a successful round-robin pick advances it.

	strategy, err := service.NewStrategy(domain.RoundRobin, rng)
	sel := service.Select(servers, strategy, cursor, originID)
	if !sel.Found {
		// no healthy server, the request is dropped
	}

Travel Clock:
The TravelClock stands in for the animation layer. On every tick it reports
arrival for travelling requests and can resolve requests that have spent
ServiceTicks ticks at their server.

	clock := service.NewTravelClock(service.TravelClockConfig{
		Enabled:      true,
		Tick:         500 * time.Millisecond,
		AutoResolve:  true,
		ServiceTicks: 3,
	}, engine, log)
	_ = clock.Start(ctx)
	defer clock.Stop()

Config Reload:
ConfigReloadService polls the config file and re-initializes the engine when
the simulation topology or algorithm changes.

Metrics and Decision Log:
Metrics counts decisions, drops, resolutions and batch expansions per
algorithm and server. DecisionLog keeps the most recent human-readable
records, newest first.
*/
package service
