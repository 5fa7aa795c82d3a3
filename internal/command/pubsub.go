/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package command

import (
	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
)

func init() {
	register(Spec{Name: "SUBSCRIBE", Category: acl.CatPubSub, Arity: -2, Keys: channelSpec(), Handler: cmdSubscribe})
	register(Spec{Name: "UNSUBSCRIBE", Category: acl.CatPubSub, Arity: -1, Keys: channelSpec(), Handler: cmdUnsubscribe})
	register(Spec{Name: "PUBLISH", Category: acl.CatPubSub | acl.CatWrite, Arity: 3, Keys: KeySpec{FirstKey: 1, LastKey: 1, Step: 1, Kind: acl.AccessRead, Channel: true}, Handler: cmdPublish})
	register(Spec{Name: "PUBSUB", Category: acl.CatPubSub | acl.CatRead, Arity: -2, Keys: noKeys, Handler: cmdPubSub})
}

// channelSpec covers every argument after the command name, matching
// SUBSCRIBE/UNSUBSCRIBE's variadic channel list (PUBLISH's spec stops at
// its single channel argument, leaving the payload out); the ACL layer checks these against deny_channel_patterns
// rather than the key-pattern lists.
func channelSpec() KeySpec {
	return KeySpec{FirstKey: 1, LastKey: -1, Step: 1, Kind: acl.AccessRead, Channel: true}
}

// cmdSubscribe replies with one push frame per channel, each
// ["subscribe", channel, count], wrapped in an array since the dispatch
// pipeline carries exactly one reply frame per call rather than a frame
// stream; internal/conn writes that array to the wire as one frame, without
// splitting it into separate push frames.
func cmdSubscribe(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	channels := args[1:]
	pushes := make([]resp3.Frame, 0, len(channels))
	for _, c := range channels {
		channel := string(c)
		ctx.Subscribe(channel)
		pushes = append(pushes, resp3.Push(
			resp3.BlobStringFromString("subscribe"),
			resp3.BlobStringFromString(channel),
			resp3.Integer(int64(len(ctx.SubscribedChannels()))),
		))
	}
	return resp3.Array(pushes...), true, nil
}

func cmdUnsubscribe(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	channels := args[1:]
	if len(channels) == 0 {
		channels = make([][]byte, 0, len(ctx.SubscribedChannels()))
		for _, c := range ctx.SubscribedChannels() {
			channels = append(channels, []byte(c))
		}
	}
	pushes := make([]resp3.Frame, 0, len(channels))
	for _, c := range channels {
		channel := string(c)
		ctx.Unsubscribe(channel)
		pushes = append(pushes, resp3.Push(
			resp3.BlobStringFromString("unsubscribe"),
			resp3.BlobStringFromString(channel),
			resp3.Integer(int64(len(ctx.SubscribedChannels()))),
		))
	}
	return resp3.Array(pushes...), true, nil
}

func cmdPublish(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	n := ctx.DB().PubSub().Publish(string(args[1]), append([]byte(nil), args[2]...))
	return resp3.Integer(int64(n)), true, nil
}

func cmdPubSub(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	sub := string(upper(args[1]))
	switch sub {
	case "CHANNELS":
		var pattern string
		if len(args) > 2 {
			pattern = string(args[2])
		}
		var elems []resp3.Frame
		for _, ch := range ctx.DB().PubSub().Channels() {
			if pattern == "" || acl.MatchGlob(pattern, ch) {
				elems = append(elems, resp3.BlobStringFromString(ch))
			}
		}
		return resp3.Array(elems...), true, nil
	case "NUMSUB":
		var pairs []resp3.KV
		for _, ch := range args[2:] {
			pairs = append(pairs, resp3.KV{
				Key:   resp3.BlobStringFromString(string(ch)),
				Value: resp3.Integer(int64(ctx.DB().PubSub().NumSub(string(ch)))),
			})
		}
		return resp3.Map(pairs...), true, nil
	default:
		return resp3.Frame{}, false, ErrSyntax
	}
}
