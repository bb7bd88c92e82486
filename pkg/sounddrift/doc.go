// ABOUTME: High-level SoundDrift library API
// ABOUTME: Provides the Player used by the sounddrift command
// Package sounddrift plays the raw PCM stream sent by the SoundDrift phone app.
//
// A Player owns one audio sink and one TCP connection for its whole life:
//
//	sink open -> connect -> relay -> source close -> sink stop/close/terminate
//
// Resources acquired before a failure are always released, in reverse order.
//
// Example:
//
//	player, err := sounddrift.NewPlayer(sounddrift.PlayerConfig{
//	    ServerAddr: "192.168.1.20",
//	})
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	result, err := player.Run(ctx)
package sounddrift
