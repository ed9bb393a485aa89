// Package shader holds the GLSL ES 3.00 sources of the effect passes.
//
// Fragment shaders derive their texture coordinate from gl_FragCoord and
// u_resolution, so they share no varyings with the vertex stage and can be
// translated independently. Video textures are stored top row first and are
// sampled with a flipped v; render targets are sampled as drawn.
package shader

// Program names, as reported by gpu.Program.Name.
const (
	Ripple    = "ripple"
	Trail     = "trail"
	Blur      = "blur"
	Composite = "composite"
)

// ───────────────────────────────── vertex ─────────────────────────────────

// PlaneVertex projects the XY plane through u_projection unchanged.
const PlaneVertex = `#version 300 es
precision highp float;
layout(location = 0) in vec2 in_vert;
uniform mat4 u_projection;
void main() {
    gl_Position = u_projection * vec4(in_vert, 0.0, 1.0);
}
`

// ───────────────────────────────── ripple ─────────────────────────────────

// RippleFragment offsets the video lookup around the pointer with a Gaussian
// falloff. A positive u_rippleSpeed turns the offset into a travelling wave.
const RippleFragment = `#version 300 es
precision highp float;

uniform sampler2D u_videoTexture;
uniform vec2  u_resolution;
uniform vec2  u_mouse;
uniform float u_time;
uniform float u_rippleStrength;
uniform float u_rippleSpeed;
uniform float u_rippleRadius;
uniform float u_rippleIntensity;

out vec4 fragColor;

void main() {
    vec2 uv = gl_FragCoord.xy / u_resolution;
    float aspect = u_resolution.x / u_resolution.y;

    vec2 delta = uv - u_mouse;
    delta.x *= aspect;
    float dist = length(delta);
    float falloff = exp(-(dist * dist) / (u_rippleRadius * u_rippleRadius));

    float wave = 1.0;
    if (u_rippleSpeed > 0.0) {
        wave = sin(dist * 30.0 - u_time * u_rippleSpeed);
    }

    vec2 dir = dist > 1e-5 ? delta / dist : vec2(0.0);
    dir.x /= aspect;

    vec2 offset = dir * falloff * wave * u_rippleStrength * u_rippleIntensity;
    vec2 st = clamp(uv - offset, 0.0, 1.0);
    fragColor = texture(u_videoTexture, vec2(st.x, 1.0 - st.y));
}
`

// ───────────────────────────────── trail ──────────────────────────────────

// TrailFragment fades the previous trail and deposits a capsule between the
// previous and current pointer while the pointer is active.
const TrailFragment = `#version 300 es
precision highp float;

uniform sampler2D u_previousTrail;
uniform vec2  u_resolution;
uniform vec2  u_mouse;
uniform vec2  u_previousMouse;
uniform float u_trailRadius;
uniform float u_fadeSpeed;
uniform float u_intensity;
uniform float u_isActive;

out vec4 fragColor;

void main() {
    vec2 uv = gl_FragCoord.xy / u_resolution;
    float prev = texture(u_previousTrail, uv).r * (1.0 - u_fadeSpeed);

    vec2 scale = vec2(u_resolution.x / u_resolution.y, 1.0);
    vec2 pa = (uv - u_previousMouse) * scale;
    vec2 ba = (u_mouse - u_previousMouse) * scale;
    float h = clamp(dot(pa, ba) / max(dot(ba, ba), 1e-8), 0.0, 1.0);
    float d = length(pa - ba * h);

    float blob = (1.0 - smoothstep(0.0, u_trailRadius, d)) * u_intensity * u_isActive;
    float v = clamp(prev + blob, 0.0, 1.0);
    fragColor = vec4(v, v, v, 1.0);
}
`

// BlurFragment is one direction of a separable 9-tap Gaussian.
const BlurFragment = `#version 300 es
precision highp float;

uniform sampler2D u_inputTexture;
uniform vec2  u_resolution;
uniform float u_blurRadius;
uniform bool  u_horizontal;

out vec4 fragColor;

const float weights[5] = float[5](0.2270270, 0.1945946, 0.1216216, 0.0540540, 0.0162162);

void main() {
    vec2 uv = gl_FragCoord.xy / u_resolution;
    vec2 dir = u_horizontal ? vec2(1.0, 0.0) : vec2(0.0, 1.0);
    vec2 stepUV = dir * u_blurRadius / u_resolution;

    vec4 sum = texture(u_inputTexture, uv) * weights[0];
    for (int i = 1; i < 5; i++) {
        vec2 off = stepUV * float(i);
        sum += texture(u_inputTexture, uv + off) * weights[i];
        sum += texture(u_inputTexture, uv - off) * weights[i];
    }
    fragColor = sum;
}
`

// CompositeFragment tints the blurred trail and blends it over the video.
const CompositeFragment = `#version 300 es
precision highp float;

uniform sampler2D u_videoTexture;
uniform sampler2D u_trailTexture;
uniform vec2  u_resolution;
uniform vec3  u_trailColor;
uniform float u_trailIntensity;
uniform float u_trailBlend;

out vec4 fragColor;

void main() {
    vec2 uv = gl_FragCoord.xy / u_resolution;
    vec4 video = texture(u_videoTexture, vec2(uv.x, 1.0 - uv.y));
    float trail = texture(u_trailTexture, uv).r * u_trailIntensity;

    vec3 lit = video.rgb + trail * u_trailColor;
    vec3 color = mix(video.rgb, lit, clamp(u_trailBlend * trail, 0.0, 1.0));
    fragColor = vec4(color, 1.0);
}
`
