// Package ecs provides ECS adapters for tilegrid.
//
// The primary adapter is [NewDonburiStore], which lets a [Donburi] world act
// as the runtime's entity store: grid coordinates live in the [Coordinate]
// component and picker results are published back as [HoverEventType]
// events.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	rt, err := tilegrid.NewRuntime(cfg, store, renderer)
//	store.BindPicker(rt.Picker())
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
